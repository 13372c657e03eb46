// Package prompt builds the chat messages sent to the model for entity
// tagging and sentiment classification.
//
// Every prompt asks for a single JSON value so replies can be decoded
// without a second extraction pass; callers should also set
// llm.ChatOptions.JSON.
//
//	msgs, err := prompt.Build(prompt.TypeSentiment, prompt.BuildOptions{
//	    Text: "bugün harika bir gün",
//	})
//	resp, err := provider.Chat(ctx, msgs, &llm.ChatOptions{JSON: true})
//
// [TypeSentimentBatch] numbers each input so the reply can be matched back
// to its message; a reply with the wrong number of results is the caller's
// signal to fall back to one message per call.
package prompt
