// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside the local runtime.
//
// Core goals:
//   - Normalize conversation turns onto the core block vocabulary
//   - Normalize tool definitions and tool-use requests across vendors
//   - Report token usage so runs can be priced
//   - Facilitate lightweight scripting for tests (ScriptedModel)
//
// Providers (Anthropic, OpenAI) implement the Model interface from this
// package so the runtime loop remains decoupled from vendor SDKs.
package model
