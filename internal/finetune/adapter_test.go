package finetune

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adapterConfigJSON = `{"base_model_name_or_path":"tiny","peft_type":"LORA","r":8,"lora_alpha":32,"target_modules":["q_proj","v_proj"]}`

func writeAdapter(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, AdapterConfigFile), []byte(adapterConfigJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, AdapterWeightsFile), []byte("weights"), 0o644))
}

func TestVerifyAdapter(t *testing.T) {
	dir := t.TempDir()
	_, err := VerifyAdapter(dir)
	require.Error(t, err)
	assert.True(t, IsAdapterMissing(err))
	assert.Contains(t, err.Error(), AdapterConfigFile)

	require.NoError(t, os.WriteFile(filepath.Join(dir, AdapterConfigFile), []byte(adapterConfigJSON), 0o644))
	_, err = VerifyAdapter(dir)
	assert.True(t, IsAdapterMissing(err))
	assert.Contains(t, err.Error(), AdapterWeightsFile)

	require.NoError(t, os.WriteFile(filepath.Join(dir, AdapterWeightsFile), nil, 0o644))
	_, err = VerifyAdapter(dir)
	assert.True(t, IsAdapterMissing(err), "empty weights file")

	writeAdapter(t, dir)
	info, err := VerifyAdapter(dir)
	require.NoError(t, err)
	assert.Equal(t, AdapterInfo{BaseModel: "tiny", PeftType: "LORA", R: 8, Alpha: 32, TargetModules: []string{"q_proj", "v_proj"}}, info)
}

func TestVerifyAdapterBadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, AdapterConfigFile), []byte("{"), 0o644))
	_, err := VerifyAdapter(dir)
	require.Error(t, err)
	assert.False(t, IsAdapterMissing(err))
}
