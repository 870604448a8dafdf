// Package model defines the provider-neutral interface the treasury executor
// uses to talk to an LLM, plus a scripted MockModel for tests and offline
// demos.
//
// Provider adapters live in subpackages:
//
//   - model/anthropic: Anthropic Messages API with tool use
//   - model/openai: OpenAI Chat Completions with tool calls and streaming
//
// A Model emits partial responses followed by one final response on a
// channel; Collect drains that into a single final Response.
package model
