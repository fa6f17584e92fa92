package detection

import (
	"github.com/rs/zerolog/log"
	"go.uber.org/multierr"

	"dualvision-worker-go/internal/config"
	"dualvision-worker-go/internal/models"
)

// Service owns both detector slots. Each slot always holds a detector; a
// backend that failed to initialize sits there as an unavailable detector.
type Service struct {
	Learned *Guard
	Cascade *Guard
}

// NewService builds the learned and cascade detectors from configuration
func NewService(cfg *config.Config) *Service {
	log.Info().
		Str("learned_backend", cfg.LearnedBackend).
		Str("cascade_dir", cfg.CascadeDir).
		Strs("cascades", cfg.CascadeNames).
		Msg("Initializing detectors")

	var learned Detector
	switch cfg.LearnedBackend {
	case config.BackendONNX:
		learned = NewLearnedDetector(LearnedOptions{
			ModelPath:     cfg.LearnedModelPath,
			ClassesPath:   cfg.LearnedClassesPath,
			InputSize:     cfg.LearnedInputSize,
			Confidence:    cfg.LearnedConfidence,
			NMSThreshold:  cfg.LearnedNMSThreshold,
			PreferredCUDA: cfg.LearnedCUDA,
		})
	case config.BackendGRPC:
		learned = NewRemoteDetector(RemoteOptions{
			Endpoint: cfg.LearnedGRPCAddr,
			Method:   cfg.LearnedGRPCMethod,
		})
	default:
		learned = &Unavailable{Source: models.SourceLearned, Reason: "disabled by configuration"}
	}

	cascade := NewCascadeDetector(cfg.CascadeDir, cfg.CascadeNames)

	opts := GuardOptions{Timeout: cfg.DetectorTimeout, Retries: cfg.DetectorRetries}
	return NewServiceFrom(learned, cascade, opts)
}

// NewServiceFrom wraps already constructed detectors
func NewServiceFrom(learned, cascade Detector, opts GuardOptions) *Service {
	return &Service{
		Learned: NewGuard(learned, opts),
		Cascade: NewGuard(cascade, opts),
	}
}

// For returns the guarded detector of the given kind
func (s *Service) For(source models.DetectionSource) *Guard {
	switch source {
	case models.SourceLearned:
		return s.Learned
	case models.SourceCascade:
		return s.Cascade
	default:
		return nil
	}
}

// Info returns the runtime view of both detectors keyed by kind
func (s *Service) Info() map[string]models.DetectorInfo {
	return map[string]models.DetectorInfo{
		models.SourceLearned.String(): s.Learned.Info(),
		models.SourceCascade.String(): s.Cascade.Info(),
	}
}

// Close releases both detectors
func (s *Service) Close() error {
	return multierr.Combine(s.Learned.Close(), s.Cascade.Close())
}
