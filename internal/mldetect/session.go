package mldetect

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yalue/onnxruntime_go"

	"github.com/recibo-tech/qrscan/internal/models"
	"github.com/recibo-tech/qrscan/internal/onnx"
)

// tierSession owns one lazily created ONNX session. Most scans never reach
// the detector, so model loading is deferred until the first escalation and
// the outcome, success or failure, is latched.
type tierSession struct {
	tier   Tier
	config Config
	logger *slog.Logger

	once    sync.Once
	mu      sync.Mutex
	session *onnxruntime_go.DynamicAdvancedSession
	err     error
}

func newTierSession(tier Tier, config Config, logger *slog.Logger) *tierSession {
	return &tierSession{tier: tier, config: config, logger: logger}
}

func (s *tierSession) load() {
	modelPath := models.DetectorModelPath(s.config.ModelsDir, modelFile(s.tier))
	if err := models.ValidateModelFile(modelPath); err != nil {
		s.err = fmt.Errorf("%w: %s tier: %v", ErrModelUnavailable, s.tier, err)
		return
	}

	if err := onnx.EnsureInitialized(s.config.GPU.UseGPU); err != nil {
		s.err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		return
	}

	inputInfo, outputInfo, err := validateModelInfo(modelPath)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		return
	}

	session, err := createSession(modelPath, inputInfo, outputInfo, s.config)
	if err != nil {
		s.err = fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		return
	}

	s.session = session
	s.logger.Debug("detector model loaded",
		"tier", s.tier,
		"model", modelPath,
		"input", inputInfo.Name,
		"output", outputInfo.Name)
}

// get returns the session, loading it on first use.
func (s *tierSession) get() (*onnxruntime_go.DynamicAdvancedSession, error) {
	s.once.Do(s.load)
	return s.session, s.err
}

// run executes one inference. The session serializes runs; concurrent scans
// queue here rather than sharing ONNX run state.
func (s *tierSession) run(input onnxruntime_go.Value) (onnxruntime_go.Value, error) {
	session, err := s.get()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	outputs := []onnxruntime_go.Value{nil}
	if err := session.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return nil, fmt.Errorf("mldetect: %s tier inference: %w", s.tier, err)
	}
	return outputs[0], nil
}

func (s *tierSession) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			s.logger.Warn("failed to destroy detector session", "tier", s.tier, "error", err)
		}
		s.session = nil
	}
}

func validateModelInfo(modelPath string) (onnxruntime_go.InputOutputInfo, onnxruntime_go.InputOutputInfo, error) {
	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return onnxruntime_go.InputOutputInfo{}, onnxruntime_go.InputOutputInfo{},
			fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 {
		return onnxruntime_go.InputOutputInfo{}, onnxruntime_go.InputOutputInfo{},
			fmt.Errorf("expected 1 input, got %d", len(inputs))
	}
	if len(outputs) != 1 {
		return onnxruntime_go.InputOutputInfo{}, onnxruntime_go.InputOutputInfo{},
			fmt.Errorf("expected 1 output, got %d", len(outputs))
	}
	if len(inputs[0].Dimensions) != 4 {
		return onnxruntime_go.InputOutputInfo{}, onnxruntime_go.InputOutputInfo{},
			fmt.Errorf("expected 4D input tensor, got %dD", len(inputs[0].Dimensions))
	}
	return inputs[0], outputs[0], nil
}

func createSession(modelPath string, inputInfo, outputInfo onnxruntime_go.InputOutputInfo,
	config Config,
) (*onnxruntime_go.DynamicAdvancedSession, error) {
	sessionOptions, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if err := sessionOptions.Destroy(); err != nil {
			slog.Warn("failed to destroy session options", "error", err)
		}
	}()

	if err := onnx.ConfigureSessionForGPU(sessionOptions, config.GPU); err != nil {
		return nil, fmt.Errorf("failed to configure GPU: %w", err)
	}

	if config.NumThreads > 0 {
		if err := sessionOptions.SetIntraOpNumThreads(config.NumThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	session, err := onnxruntime_go.NewDynamicAdvancedSession(modelPath,
		[]string{inputInfo.Name}, []string{outputInfo.Name}, sessionOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}
	return session, nil
}
