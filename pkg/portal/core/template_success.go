package core

const successTemplate = `
{{define "content"}}
<div class="success-icon" aria-hidden="true">&#10003;</div>
<h2 class="subtitle">Registration Successful!</h2>
<p>Congratulations! Your registration for The Turing Test 25 has been completed successfully.</p>
{{if .Email}}<p>Your email <strong>{{.Email}}</strong> has been verified.</p>{{end}}
<ul class="details">
	<li>Email verification completed</li>
	<li>Registration confirmed</li>
	<li>Event details will be shared soon</li>
</ul>
<a href="/" class="btn">Back to Home</a>
<div class="footer">
	<p>Thank you for registering for The Turing Test 25!</p>
	<p>We look forward to seeing you at the event.</p>
</div>
{{end}}
`
