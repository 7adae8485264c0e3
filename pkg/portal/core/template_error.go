package core

const errorTemplate = `
{{define "content"}}
<h2 class="subtitle">{{.Message}}</h2>
{{if .Detail}}<p>{{.Detail}}</p>{{end}}
{{if .ActionURL}}<a href="{{.ActionURL}}" class="btn">{{.ActionLabel}}</a>{{end}}
{{end}}
`
