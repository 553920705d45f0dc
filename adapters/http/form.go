package converthttp

import (
	"github.com/flosch/pongo2/v6"
)

const formTemplateSource = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Convert Word to PDF</title>
</head>
<body>
<form action="{{ action }}" method="post" enctype="multipart/form-data">
<p><input type="file" name="docx" accept=".docx"></p>
{% for r in renderers %}<p><label><input type="radio" name="renderer" value="{{ r.Name }}"{% if r.Checked %} checked{% endif %}> {{ r.Label }}</label></p>
{% endfor %}<p><input type="submit" value="Convert"></p>
</form>
</body>
</html>
`

var formTemplate = pongo2.Must(pongo2.FromString(formTemplateSource))

type formView struct {
	Action    string
	Renderers []RendererChoice
	Selected  string
}

type formRenderer struct {
	Name    string
	Label   string
	Checked bool
}

func renderForm(view formView) ([]byte, error) {
	renderers := make([]formRenderer, 0, len(view.Renderers))
	for _, choice := range view.Renderers {
		label := choice.Label
		if label == "" {
			label = choice.Name
		}
		renderers = append(renderers, formRenderer{
			Name:    choice.Name,
			Label:   label,
			Checked: choice.Name == view.Selected,
		})
	}
	return formTemplate.ExecuteBytes(pongo2.Context{
		"action":    view.Action,
		"renderers": renderers,
	})
}
