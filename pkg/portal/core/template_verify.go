package core

// verifyTemplate is the code entry grid with the resend control. Once the
// code is accepted it shows the outcome and moves on to the success page.
const verifyTemplate = `
{{define "head"}}{{if .Succeeded}}<meta http-equiv="refresh" content="{{.SuccessDelayS}};url={{.SuccessPath}}">{{end}}{{end}}

{{define "content"}}
<h2 class="subtitle">Verification Code</h2>
<p>We have sent a 5-character verification code to your college id <strong>{{.Email}}</strong></p>

{{if .Succeeded}}
<div data-redirect="{{.SuccessPath}}" data-delay="{{.SuccessDelayMS}}"></div>
{{else}}
<form id="verify-form" method="POST" action="/Verify" autocomplete="off">
	<div class="otp">
		{{$focus := .Focus}}{{range $i, $v := .Slots}}<input type="text" name="{{slot $i}}" value="{{$v}}" maxlength="1" inputmode="text" aria-label="Code character {{$i}}"{{if eq $i $focus}} autofocus{{end}}>
		{{end}}
	</div>
	<button type="submit" id="verify-button" class="btn"{{if not .CodeComplete}} disabled{{end}}>Submit</button>
</form>

<form method="POST" action="/Verify/resend" class="resend">
	Didn't receive the code?
	<button type="submit" id="resend-button" class="btn btn-link" data-countdown="{{.ResendIn}}"{{if gt .ResendIn 0}} disabled{{end}}>{{if gt .ResendIn 0}}Resend OTP in {{.ResendIn}}s{{else}}Resend OTP{{end}}</button>
</form>
{{end}}
{{end}}
`
