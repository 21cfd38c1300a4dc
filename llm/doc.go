// Package llm is the language-model collaborator used by the subtask engine.
// It routes requests to provider adapters, wraps them in middleware, and
// exposes the two calls the planner and explainer need: free text and
// structured tool calls.
//
// # Architecture
//
//   - Adapters: ProviderAdapter implementations. GollmAdapter covers OpenAI,
//     Anthropic and the other gollm providers; GeminiAdapter talks to the
//     Gemini API through google.golang.org/genai with native function calls.
//   - Client: provider routing by name or model catalog, onion middleware
//     (logging, retry).
//   - Generator: GenerateText and GenerateStructured, the narrow interface the
//     rest of the module depends on.
//
// # Quick Start
//
//	adapter, _ := llm.NewGollmAdapter("openai", os.Getenv("OPENAI_API_KEY"))
//	client := llm.NewClient(
//	    llm.WithProvider("openai", adapter),
//	    llm.WithMiddleware(llm.RetryMiddleware(llm.DefaultRetryPolicy())),
//	)
//
//	plan, _ := client.GenerateText(ctx, []llm.Message{
//	    llm.SystemMessage("You plan work."),
//	    llm.UserMessage("Find where the config is loaded"),
//	})
//
//	out, _ := client.GenerateStructured(ctx, msgs, tools)
//	for _, call := range out.Calls {
//	    fmt.Println(call.Name, string(call.Arguments))
//	}
package llm
