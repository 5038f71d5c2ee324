package assembler

import "github.com/lifeos/ctxpack/pkg/intent"

const systemPreamble = "You are the assistant inside a personal life-management app. " +
	"You help the user with their journal, goals, tasks, finances, reading and contacts. " +
	"Be concise, concrete and friendly. Never invent records the user has not mentioned."

var systemGuidance = map[intent.Kind]string{
	intent.Action: "The user wants something done. Use the available tools to carry out the request, " +
		"confirm what you changed, and ask one short question only if a required detail is missing.",
	intent.Recall: "The user wants to remember or review something. Answer from the memory context provided " +
		"below. If the context does not cover the question, say so plainly instead of guessing.",
	intent.Mixed: "The user wants to review something and then act on it. First answer from the memory " +
		"context provided below, then carry out the requested action with the available tools.",
}

// memoryLeadIn opens the assistant memory block.
const memoryLeadIn = "Here is what I found in your saved notes that may be relevant:"

// memorySeparator joins the lead-in and packed snippets.
const memorySeparator = "\n\n"

// systemPrompt renders the system template for kind.
func systemPrompt(kind intent.Kind) string {
	guidance, ok := systemGuidance[kind]
	if !ok {
		guidance = systemGuidance[intent.Action]
	}
	return systemPreamble + "\n\n" + guidance
}
