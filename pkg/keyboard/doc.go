// Package keyboard observes physical key transitions through a listen-only
// event tap (the macOS Quartz event tap on darwin, a scripted replay source
// elsewhere), resolves each transition to the character the active keyboard
// layout would produce, and hands the decoded event to a Sink.
package keyboard
