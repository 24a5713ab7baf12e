// Package embeddings provides embedding generation via langchaingo.
//
// The service speaks the OpenAI embeddings API, which also covers
// OpenAI-compatible local servers (TEI and friends). It backs the fact
// store's document indexing and query embedding.
//
// Example usage with OpenAI:
//
//	cfg := embeddings.Config{
//	    BaseURL: "https://api.openai.com/v1",
//	    Model:   "text-embedding-3-small",
//	    APIKey:  os.Getenv("OPENAI_API_KEY"),
//	}
//	svc, err := embeddings.New(cfg, logger)
//	if err != nil {
//	    // Handle error
//	}
//	vectors, err := svc.EmbedDocuments(ctx, []string{"text1", "text2"})
//
// Example usage with a local TEI server:
//
//	cfg := embeddings.Config{
//	    BaseURL: "http://localhost:8080/v1",
//	    Model:   "BAAI/bge-small-en-v1.5",
//	}
//	svc, err := embeddings.New(cfg, logger)
package embeddings
