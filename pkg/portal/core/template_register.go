package core

// registerTemplate is the registration form.
const registerTemplate = `
{{define "head"}}{{if .SiteKey}}<script src="https://www.google.com/recaptcha/api.js" async defer></script>{{end}}{{end}}

{{define "content"}}
<form id="register-form" method="POST" action="/" data-site-key="{{.SiteKey}}" novalidate>
	{{template "input" index .Fields "name"}}
	{{template "select" index .Selects "branch"}}
	{{template "select" index .Selects "domain"}}
	{{template "input" index .Fields "univRoll"}}
	<div class="field-row">
		{{template "select" index .Selects "gender"}}
		{{template "select" index .Selects "scholarType"}}
	</div>
	{{template "input" index .Fields "studentNumber"}}
	{{template "input" index .Fields "email"}}
	{{template "input" index .Fields "mobile"}}

	{{if .SiteKey}}
	<div class="g-recaptcha" data-sitekey="{{.SiteKey}}" data-size="invisible" data-callback="turingregCaptchaDone"></div>
	<p class="captcha-notice">
		This site is protected by reCAPTCHA and the Google
		<a href="https://policies.google.com/privacy" target="_blank" rel="noopener noreferrer">Privacy Policy</a> and
		<a href="https://policies.google.com/terms" target="_blank" rel="noopener noreferrer">Terms of Service</a> apply.
	</p>
	{{end}}

	<button type="submit" id="register-button" class="btn">Verify</button>
</form>
{{end}}
`
