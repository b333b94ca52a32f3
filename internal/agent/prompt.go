package agent

import (
	"fmt"
	"strings"

	"termagent/internal/session"
)

// DefaultHistoryInPrompt is how many recent commands are quoted in a request.
const DefaultHistoryInPrompt = 3

const reactInstructions = `
To use a tool, please use the following format:
` + "```" + `
Thought: I need to analyze the problem and decide what to do
Action: tool_name
Action Input: the input to the tool
` + "```" + `

After you use a tool, I'll show you the output. You can then continue with:
` + "```" + `
Observation: [tool output will appear here]
Thought: I need to analyze the output and decide what to do next
Action: another_tool_name
Action Input: another input
` + "```" + `

When you have completed the task, respond with:
` + "```" + `
Thought: I have completed the task
Final Answer: [your detailed response]
` + "```" + `

Start by analyzing the user request and determining what tools you need to use.
ALWAYS begin with a "Thought:" where you think step-by-step about how to solve the problem.
ALWAYS follow the Thought, Action, Action Input, Observation pattern until you have the information needed, then conclude with Final Answer.

As the Terminal Assistant, you should:
- Execute shell commands to help the user
- Provide explanations of what commands do
- Be precise and thorough
- Take initiative to complete the full workflow without asking for additional inputs
- Use multiple commands in sequence when needed to solve complex tasks
- Explore and explain files and directories as needed
- Read and explain code and configuration files when asked
`

// forceConclusionPrompt is sent once the iteration budget is spent.
const forceConclusionPrompt = "You've taken several steps but need to conclude now. Please provide your Final Answer based on what you've learned so far."

// PromptBuilder assembles the ReAct system prompt and the per-request user prompt.
type PromptBuilder struct {
	catalogue       string
	historyInPrompt int
}

// NewPromptBuilder creates a builder for the given tool catalogue
// ("name: description" lines). historyInPrompt is the number of recent
// commands quoted in each request: 0 quotes none, a negative value uses the
// default.
func NewPromptBuilder(catalogue string, historyInPrompt int) *PromptBuilder {
	if historyInPrompt < 0 {
		historyInPrompt = DefaultHistoryInPrompt
	}
	return &PromptBuilder{catalogue: catalogue, historyInPrompt: historyInPrompt}
}

func (p *PromptBuilder) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an AI assistant that helps with terminal operations and file exploration.\n")
	b.WriteString("You have access to the following tools:\n\n")
	b.WriteString(p.catalogue)
	b.WriteString(reactInstructions)
	return b.String()
}

// UserPrompt appends the working directory and the most recent command results
// to the request.
func (p *PromptBuilder) UserPrompt(query string, st *session.State) string {
	if st == nil {
		return query
	}
	var b strings.Builder
	b.WriteString(query)
	fmt.Fprintf(&b, "\nCurrent working directory: %s", st.WorkingDir)
	if recent := st.History.Recent(p.historyInPrompt); len(recent) > 0 {
		b.WriteString("\nPrevious command results:\n")
		for _, e := range recent {
			fmt.Fprintf(&b, "Command: %s\nOutput: %s\n\n", e.Command, e.Output)
		}
	}
	return b.String()
}

// OpeningMessage is the first text sent to the model: the system prompt
// followed by the user request.
func OpeningMessage(systemPrompt, userPrompt string) string {
	return systemPrompt + "\n\nUser request: " + userPrompt
}
