package agent

import (
	"fmt"
	"regexp"
	"strings"
)

// Decision is the parsed form of a model reply: either an Action to run or a
// Finish that ends the loop.
type Decision interface {
	LogText() string
	decision()
}

// Action asks the loop to invoke Tool with ToolInput.
type Action struct {
	Tool      string
	ToolInput string
	Log       string
}

// Finish carries the final answer.
type Finish struct {
	Output string
	Log    string
}

func (a Action) LogText() string { return a.Log }
func (f Finish) LogText() string { return f.Log }
func (Action) decision()         {}
func (Finish) decision()         {}

// Each marker captures lazily up to the next marker that can follow it, so the
// first occurrence of each marker wins.
var (
	finalAnswerRe = regexp.MustCompile("(?s)Final Answer:(.*?)(?:$|```)")
	thoughtRe     = regexp.MustCompile(`(?s)Thought:(.*?)(?:Action:|Final Answer:|$)`)
	actionRe      = regexp.MustCompile(`(?s)Action:(.*?)(?:Action Input:|$)`)
	actionInputRe = regexp.MustCompile(`(?s)Action Input:(.*?)(?:Observation:|Thought:|$)`)
)

// Parse turns a raw model reply into a Decision. done reports whether the
// Decision is a Finish.
//
// A "Final Answer:" marker always wins, even when Action markers are also
// present. Otherwise "Action:" and "Action Input:" together produce an Action.
// Anything else is treated as an unstructured final answer.
func Parse(text string) (d Decision, done bool) {
	if m := finalAnswerRe.FindStringSubmatch(text); m != nil {
		out := strings.TrimSpace(m[1])
		return Finish{Output: out, Log: "Final Answer: " + out}, true
	}

	action := actionRe.FindStringSubmatch(text)
	input := actionInputRe.FindStringSubmatch(text)
	if action != nil && input != nil {
		thought := ""
		if m := thoughtRe.FindStringSubmatch(text); m != nil {
			thought = strings.TrimSpace(m[1])
		}
		tool := strings.TrimSpace(action[1])
		toolInput := strings.TrimSpace(input[1])
		return Action{
			Tool:      tool,
			ToolInput: toolInput,
			Log:       fmt.Sprintf("Thought: %s\nAction: %s\nAction Input: %s", thought, tool, toolInput),
		}, false
	}

	out := strings.TrimSpace(text)
	return Finish{Output: out, Log: "Unparsed response treated as final answer: " + out}, true
}
