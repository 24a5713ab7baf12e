// Package extraction builds structured interview cases from the plain
// text of uploaded case documents.
//
// The package supports two strategies behind one CaseExtractor
// interface:
//   - HeuristicExtractor: deterministic keyword and question-mark
//     scanning, no network access
//   - LLMExtractor: oracle-driven analysis returning the case structure
//     as JSON, with optional degradation to the heuristic path
//
// # Pipeline position
//
// The HTTP upload handler and the directory watcher both hand PDF text
// to an extractor and feed the resulting CaseDocument into the case
// registry and the fact store. Extraction never touches either store
// itself.
//
// # Usage
//
// Create an extractor from configuration:
//
//	extractor, err := extraction.New(extraction.Config{
//	    Provider: extraction.ProviderHeuristic,
//	    CacheDir: "/var/lib/interviewd/extraction",
//	}, nil, logger)
//
// Extract a case:
//
//	doc, err := extractor.Extract(ctx, text)
//	c, err := interview.CaseFromDocument(doc)
//
// # Caching
//
// Results are cached on disk keyed by the SHA-256 fingerprint of the
// normalized document text, so re-uploading an unchanged document is
// free and deterministic regardless of provider.
package extraction
