package assistants

import (
	"context"
	"embed"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/felix/chatmodel"
	"github.com/effective-security/felix/pkg/prompts"
)

// DefaultSystemPrompt is the system prompt template,
// the {{ .Tools }} value is the tool catalogue.
const DefaultSystemPrompt = `You are Felix, a personal butler. Be concise and professional, with a human touch.

## Using tools

When you need to look something up, reply with JSON only, no other text:
` + "```json" + `
{"tool": "tool_name", "args": {"parameter": "value"}}
` + "```" + `

Available tools:
{{ .Tools }}

## Answering

Follow the Skill that matches the type of the user's question.`

// SkillsSeparator separates skills in the system prompt
const SkillsSeparator = "\n\n---\n\n"

//go:embed skills/*.md
var skillsFS embed.FS

// Prompt builds the messages of a conversation
type Prompt struct {
	template *prompts.PromptTemplate
	skills   string
}

// NewPrompt returns a Prompt with the template text, or DefaultSystemPrompt
// when it is empty. Skills are the embedded ones followed by *.md files
// from skillsDir, if provided.
func NewPrompt(templateText, skillsDir string) (*Prompt, error) {
	if templateText == "" {
		templateText = DefaultSystemPrompt
	}
	tmpl, err := prompts.NewPromptTemplate("system", templateText)
	if err != nil {
		return nil, chatmodel.ConfigError("invalid system prompt: %s", err.Error())
	}

	skills, err := loadSkills(skillsFS, "skills")
	if err != nil {
		return nil, err
	}
	if skillsDir != "" {
		extra, err := loadSkills(os.DirFS(skillsDir), ".")
		if err != nil {
			return nil, chatmodel.ConfigError("unable to load skills from %s: %s", skillsDir, err.Error())
		}
		skills = append(skills, extra...)
	}

	return &Prompt{
		template: tmpl,
		skills:   strings.Join(skills, SkillsSeparator),
	}, nil
}

// Skills returns the skills text
func (p *Prompt) Skills() string {
	return p.skills
}

// System returns the system prompt for the tool catalogue
func (p *Prompt) System(catalogue string) (string, error) {
	text, err := p.template.Format(map[string]any{
		"Tools": catalogue,
	})
	if err != nil {
		return "", errors.WithMessage(err, "failed to format system prompt")
	}
	if p.skills == "" {
		return text, nil
	}
	return text + "\n\n" + p.skills, nil
}

// UserMessage returns the message with the caller location note,
// if the request context has a location.
func UserMessage(ctx context.Context, message string) string {
	loc := chatmodel.GetLocation(ctx)
	if loc == nil {
		return message
	}
	return message + "\n\n(caller location: lat=" + formatCoordinate(loc.Latitude) +
		", lon=" + formatCoordinate(loc.Longitude) + ")"
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func loadSkills(fsys fs.FS, dir string) ([]string, error) {
	names, err := fs.Glob(fsys, filepath.ToSlash(filepath.Join(dir, "*.md")))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sort.Strings(names)

	var list []string
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if s := strings.TrimSpace(string(b)); s != "" {
			list = append(list, s)
		}
	}
	return list, nil
}
