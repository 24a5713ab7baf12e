package extraction

import (
	"go.uber.org/zap"
)

// New creates a case extractor from configuration.
//
// The heuristic provider needs no collaborators. The llm provider needs
// a completer; when cfg.LLMFallback is set it degrades to heuristics on
// oracle failure. A non-empty cfg.CacheDir wraps the extractor in the
// fingerprint cache.
func New(cfg Config, completer Completer, logger *zap.Logger) (CaseExtractor, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var extractor CaseExtractor
	switch cfg.Provider {
	case ProviderHeuristic:
		extractor = NewHeuristicExtractor()
	case ProviderLLM:
		var opts []LLMOption
		if cfg.LLMFallback {
			opts = append(opts, WithFallback(NewHeuristicExtractor()))
		}
		llm, err := NewLLMExtractor(completer, logger, opts...)
		if err != nil {
			return nil, err
		}
		extractor = llm
	}

	if cfg.CacheDir != "" {
		return NewCachingExtractor(extractor, cfg.CacheDir, logger)
	}
	return extractor, nil
}
