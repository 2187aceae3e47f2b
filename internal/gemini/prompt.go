package gemini

import (
	"fmt"
	"strings"
)

// RewritePrompt builds the inner-monologue rewrite instruction for one email.
// The model answers in the language of the original.
func RewritePrompt(sender, receiver, body string) string {
	var b strings.Builder
	b.WriteString(`# Persona
The sender is an office worker worn out by company life who still keeps a minimum of formality and polite speech. They skip the pleasantries and say what they actually want.

# Task
Rewrite the [Original] email below line by line as the sender's honest inner monologue. Keep the meaning of each line, but make it sound like what the sender really thinks.

# Rules
1. One to one: every line of the [Original] maps to exactly one rewritten line, in the same order.
2. Persona: every line keeps the tone of a worker who says what needs saying, in polite register.
3. No aggression: blunt and candid, never hostile.
4. Language: write in the same language as the [Original].

# Never
- Never reply to or react to the [Original].
- No greetings, brackets, commentary, explanations, asides, questions or question marks.
- Do not repeat the [Original]. Output only the rewritten lines.

# Example
(Original) Hope you have been well!
I am writing again because I have a few questions.

(Output) You must be thrilled to hear from me again!
I need a favour and you are going to do it.

---
`)
	if s := strings.TrimSpace(sender); s != "" {
		fmt.Fprintf(&b, "[Sender] %s\n", s)
	}
	if r := strings.TrimSpace(receiver); r != "" {
		fmt.Fprintf(&b, "[Receiver] %s\n", r)
	}
	b.WriteString("[Original]\n")
	b.WriteString(body)
	b.WriteString("\n\nRewrite every line as above, reflecting the sender's unvarnished thoughts. Do not include the original.")
	return b.String()
}

// SenderEmailPrompt asks for a plausible gmail address for a display name.
func SenderEmailPrompt(name string) string {
	return fmt.Sprintf("Invent one short, realistic gmail.com address for a person named %q. "+
		"Use only lowercase latin letters, digits and dots before the @. "+
		"Answer with the address only.", name)
}
