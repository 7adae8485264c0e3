package core

// layoutTemplate is the page shell shared by every page. Pages define
// "content".
const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - {{.ServiceName}}</title>
<link rel="stylesheet" href="/assets/main.css?v={{.AssetVersion}}">
{{block "head" .}}{{end}}
</head>
<body>
<main class="page">
	<div class="card">
		<h1 class="title">{{.ServiceName}}</h1>
		{{if .ServiceDescription}}<p class="subtitle">{{.ServiceDescription}}</p>{{end}}
		{{range .Notices}}<div class="notice notice-{{.Kind}}" role="status">{{.Text}}</div>
		{{end}}
		{{template "content" .}}
	</div>
</main>
<script src="/assets/portal.js?v={{.AssetVersion}}" defer></script>
</body>
</html>
{{end}}

{{define "input"}}<div class="field{{if .Error}} has-error{{end}}">
	<label for="{{.Name}}">{{.Label}}</label>
	<input type="{{.Type}}" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}" required>
	<small class="error" data-error-for="{{.Name}}">{{.Error}}</small>
</div>{{end}}

{{define "select"}}<div class="field{{if .Error}} has-error{{end}}">
	<label for="{{.Name}}">{{.Label}}</label>
	<select id="{{.Name}}" name="{{.Name}}" required>
		<option value="" disabled{{if not .Value}} selected{{end}}>{{.Placeholder}}</option>
		{{$current := .Value}}{{range .Options}}<option value="{{.Value}}"{{if eq .Value $current}} selected{{end}}>{{.Label}}</option>
		{{end}}
	</select>
	<small class="error" data-error-for="{{.Name}}">{{.Error}}</small>
</div>{{end}}
`
