package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"resumegenius/internal/ai"
	"resumegenius/internal/profile"
)

// ResumeTemplateString 是简历 PDF 渲染的 Go HTML 模板。
// 模型返回的文本可能夹带标记，统一经 bluemonday 清洗后再注入。
const ResumeTemplateString = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body {
            margin: 0;
            padding: 0;
            font-family: 'Helvetica', 'Arial', sans-serif;
            font-size: 10pt;
            color: #1a1a1a;
        }
        h1 { font-size: 20pt; margin: 0 0 2px 0; }
        h2 {
            font-size: 11pt;
            text-transform: uppercase;
            letter-spacing: 1px;
            border-bottom: 1px solid #333;
            margin: 18px 0 6px 0;
            padding-bottom: 2px;
        }
        .contact { color: #444; margin-bottom: 4px; }
        .summary { margin-top: 8px; }
        .entry { margin-bottom: 8px; }
        .entry-head { font-weight: bold; }
        .entry-dates { float: right; font-weight: normal; color: #555; }
        .skills span { display: inline-block; margin-right: 8px; }
        .skills .match { font-weight: bold; }
    </style>
</head>
<body>
    <h1>{{.Name}}</h1>
    <div class="contact">{{.ContactLine}}</div>
    {{if .LinksLine}}<div class="contact">{{.LinksLine}}</div>{{end}}

    {{if .Summary}}
    <div class="summary">{{.Summary}}</div>
    {{end}}

    {{if .Skills}}
    <h2>Skills</h2>
    <div class="skills">
        {{range .Skills}}<span{{if .Highlighted}} class="match"{{end}}>{{.Name}}</span>{{end}}
    </div>
    {{end}}

    {{if .Experiences}}
    <h2>Work Experience</h2>
    {{range .Experiences}}
    <div class="entry">
        <div class="entry-head">{{.Position}} — {{.Company}}<span class="entry-dates">{{.Dates}}</span></div>
        {{if .Description}}<div>{{.Description}}</div>{{end}}
    </div>
    {{end}}
    {{end}}

    {{if .Educations}}
    <h2>Education</h2>
    {{range .Educations}}
    <div class="entry">
        <div class="entry-head">{{.Degree}} — {{.Institution}}<span class="entry-dates">{{.Dates}}</span></div>
        {{if .Description}}<div>{{.Description}}</div>{{end}}
    </div>
    {{end}}
    {{end}}

    {{if .Projects}}
    <h2>Projects</h2>
    {{range .Projects}}
    <div class="entry">
        <div class="entry-head">{{.Name}}{{if .URL}}<span class="entry-dates">{{.URL}}</span>{{end}}</div>
        {{if .Description}}<div>{{.Description}}</div>{{end}}
    </div>
    {{end}}
    {{end}}

    {{if .Achievements}}
    <h2>Achievements</h2>
    {{range .Achievements}}
    <div class="entry">
        <div class="entry-head">{{.Title}}<span class="entry-dates">{{.Date}}</span></div>
        {{if .Description}}<div>{{.Description}}</div>{{end}}
    </div>
    {{end}}
    {{end}}
</body>
</html>
`

var resumeTemplate = template.Must(template.New("resume").Parse(ResumeTemplateString))

type skillView struct {
	Name        string
	Highlighted bool
}

type entryView struct {
	Position    string
	Company     string
	Degree      string
	Institution string
	Name        string
	Title       string
	URL         string
	Date        string
	Dates       string
	Description template.HTML
}

type resumeView struct {
	Name         string
	ContactLine  string
	LinksLine    string
	Summary      template.HTML
	Skills       []skillView
	Experiences  []entryView
	Educations   []entryView
	Projects     []entryView
	Achievements []entryView
}

// BuildResumeHTML 由档案快照与 AI 分析结果渲染出简历 HTML。
func BuildResumeHTML(snapshot *profile.Snapshot, analysis *ai.Analysis) (string, error) {
	policy := bluemonday.UGCPolicy()
	sanitize := func(s string) template.HTML {
		return template.HTML(policy.Sanitize(s))
	}

	highlighted := make(map[string]struct{}, len(analysis.HighlightedSkills))
	for _, name := range analysis.HighlightedSkills {
		highlighted[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	view := resumeView{
		Name:        snapshot.Name,
		ContactLine: joinNonEmpty(" · ", snapshot.Email, snapshot.Mobile, snapshot.Location),
		LinksLine:   joinNonEmpty(" · ", snapshot.LinkedinURL, snapshot.PortfolioURL),
		Summary:     sanitize(analysis.ProfessionalSummary),
	}

	for _, name := range snapshot.Skills {
		_, match := highlighted[strings.ToLower(name)]
		view.Skills = append(view.Skills, skillView{Name: name, Highlighted: match})
	}
	for _, exp := range snapshot.Experience {
		view.Experiences = append(view.Experiences, entryView{
			Position:    exp.Position,
			Company:     exp.Company,
			Dates:       formatDates(exp.StartDate, exp.EndDate),
			Description: sanitize(exp.Description),
		})
	}
	for _, edu := range snapshot.Education {
		view.Educations = append(view.Educations, entryView{
			Degree:      edu.Degree,
			Institution: edu.Institution,
			Dates:       formatDates(edu.StartDate, edu.EndDate),
			Description: sanitize(edu.Description),
		})
	}
	for _, proj := range snapshot.Projects {
		view.Projects = append(view.Projects, entryView{
			Name:        proj.Name,
			URL:         proj.URL,
			Description: sanitize(proj.Description),
		})
	}
	for _, ach := range snapshot.Achievements {
		view.Achievements = append(view.Achievements, entryView{
			Title:       ach.Title,
			Date:        ach.Date,
			Description: sanitize(ach.Description),
		})
	}

	var buf bytes.Buffer
	if err := resumeTemplate.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("execute resume template: %w", err)
	}
	return buf.String(), nil
}

func formatDates(start, end string) string {
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " – Present"
	default:
		return start + " – " + end
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
