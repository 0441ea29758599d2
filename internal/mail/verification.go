// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Quillboard Contributors

package mail

import "fmt"

// AppTitle appears in outbound mail subjects.
const AppTitle = "Quillboard"

// VerificationMessage builds the subject and HTML body carrying an email
// change verification code. The code is single-use and expires; the body
// says so without echoing any account detail.
func VerificationMessage(code string) (subject, htmlBody string) {
	subject = fmt.Sprintf("%s - Verify your new email address", AppTitle)
	htmlBody = fmt.Sprintf(`<p>A change of email address was requested for your %s account.</p>
<p>Your verification code is:</p>
<p><strong>%s</strong></p>
<p>The code is valid for 24 hours and can be used once. If you did not
request this change you can ignore this message.</p>`, AppTitle, code)
	return subject, htmlBody
}
