package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultGPUConfig(t *testing.T) {
	cfg := DefaultGPUConfig()
	assert.False(t, cfg.UseGPU)
	assert.Equal(t, 0, cfg.DeviceID)
	assert.Equal(t, uint64(0), cfg.GPUMemLimit)
	assert.Equal(t, "kNextPowerOfTwo", cfg.ArenaExtendStrategy)
	assert.Equal(t, "DEFAULT", cfg.CUDNNConvAlgoSearch)
	assert.True(t, cfg.DoCopyInDefaultStream)
}

func TestValidateGPUConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  GPUConfig
		wantErr bool
	}{
		{name: "valid CPU config", config: DefaultGPUConfig()},
		{name: "CPU config ignores bad values", config: GPUConfig{DeviceID: -3, ArenaExtendStrategy: "bogus"}},
		{
			name: "valid GPU config",
			config: GPUConfig{
				UseGPU:              true,
				ArenaExtendStrategy: "kSameAsRequested",
				CUDNNConvAlgoSearch: "HEURISTIC",
			},
		},
		{name: "negative device ID", config: GPUConfig{UseGPU: true, DeviceID: -1}, wantErr: true},
		{name: "invalid arena strategy", config: GPUConfig{UseGPU: true, ArenaExtendStrategy: "x"}, wantErr: true},
		{name: "invalid algo search", config: GPUConfig{UseGPU: true, CUDNNConvAlgoSearch: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateGPUConfig(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCUDASettings(t *testing.T) {
	cfg := DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.DeviceID = 1
	cfg.GPUMemLimit = 1 << 30

	s := cudaSettings(cfg)
	assert.Equal(t, "1", s["device_id"])
	assert.Equal(t, "1073741824", s["gpu_mem_limit"])
	assert.Equal(t, "kNextPowerOfTwo", s["arena_extend_strategy"])
	assert.Equal(t, "DEFAULT", s["cudnn_conv_algo_search"])
	assert.Equal(t, "1", s["do_copy_in_default_stream"])

	cfg.DoCopyInDefaultStream = false
	cfg.GPUMemLimit = 0
	s = cudaSettings(cfg)
	assert.Equal(t, "0", s["do_copy_in_default_stream"])
	assert.NotContains(t, s, "gpu_mem_limit")
}

func TestConfigureSessionForGPU_CPUIsNoop(t *testing.T) {
	assert.NoError(t, ConfigureSessionForGPU(nil, DefaultGPUConfig()))
}
