// Package oracle talks to the local inference backend that performs the
// per-file review.
//
// Two backends are supported: the native Ollama API and any OpenAI-compatible
// chat-completions server (LM Studio, llama.cpp, vLLM). Both implement
// [Client]. HTTP clients are injectable so tests can point the adapters at
// httptest servers.
//
// [Invoke] runs the attempt loop for one file as an explicit state machine:
// transport failures are retried immediately a small number of times before
// the backend is declared unavailable, and empty or rejected responses are
// retried with a stricter prompt until the attempt cap is reached. [Probe]
// performs the one-shot reachability check made before any file is reviewed.
package oracle
