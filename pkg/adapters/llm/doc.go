// Package llm selects a brain.ChatModel backend by provider name.
package llm
