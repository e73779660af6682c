package onnx

import "testing"

func TestNewImageTensor(t *testing.T) {
	data := make([]float32, 3*4*5)
	tensor, err := NewImageTensor(data, 3, 4, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int64{1, 3, 4, 5}
	for i, d := range want {
		if tensor.Shape[i] != d {
			t.Fatalf("shape[%d] = %d, want %d", i, tensor.Shape[i], d)
		}
	}
}

func TestNewImageTensorBadLength(t *testing.T) {
	if _, err := NewImageTensor(make([]float32, 10), 3, 4, 5); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := NewImageTensor(nil, 3, 4, 5); err == nil {
		t.Fatal("expected nil data error")
	}
}

func TestValidateNCHW(t *testing.T) {
	if err := ValidateNCHW([]int64{1, 3, 640, 640}); err != nil {
		t.Fatalf("valid shape rejected: %v", err)
	}
	if err := ValidateNCHW([]int64{1, 3, 640}); err == nil {
		t.Fatal("rank 3 shape accepted")
	}
	if err := ValidateNCHW([]int64{1, 3, 0, 640}); err == nil {
		t.Fatal("zero dimension accepted")
	}
}

func TestVerifyImageTensor(t *testing.T) {
	tensor := Tensor{Data: make([]float32, 12), Shape: []int64{1, 3, 2, 2}}
	if err := VerifyImageTensor(tensor); err != nil {
		t.Fatalf("valid tensor rejected: %v", err)
	}
	tensor.Data = tensor.Data[:10]
	if err := VerifyImageTensor(tensor); err == nil {
		t.Fatal("length mismatch accepted")
	}
}

func TestValidateGPUConfig(t *testing.T) {
	if err := ValidateGPUConfig(DefaultGPUConfig()); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.DeviceID = -1
	if err := ValidateGPUConfig(cfg); err == nil {
		t.Fatal("negative device ID accepted")
	}
	cfg = DefaultGPUConfig()
	cfg.UseGPU = true
	cfg.ArenaExtendStrategy = "bogus"
	if err := ValidateGPUConfig(cfg); err == nil {
		t.Fatal("bogus arena strategy accepted")
	}
}
