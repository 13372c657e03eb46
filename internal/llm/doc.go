// Package llm is the model-facing boundary of chatsift.
//
// Entity tagging and sentiment classification are delegated to a local model
// behind the Provider interface. A Provider is built once with NewProvider
// and passed to the taggers and classifiers that need it; nothing in this
// package is initialized lazily.
//
//	provider, err := llm.NewProvider(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	if err := provider.Heartbeat(ctx); err != nil {
//	    return err // llm.ErrProviderUnavailable
//	}
//
//	resp, err := provider.Chat(ctx, messages, &llm.ChatOptions{JSON: true})
//
// Provider implementations live in subpackages (internal/llm/ollama) and
// define their own types to avoid an import cycle; this package adapts them.
// All providers are safe for concurrent use.
package llm
