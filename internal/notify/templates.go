package notify

import "fmt"

// VerificationMessage builds the email sent after registration or on resend.
func VerificationMessage(to, fullName, link string) Message {
	return Message{
		To:      to,
		Subject: "Verify your SOCRP membership",
		Body: fmt.Sprintf(`Hello %s,

Thank you for registering. Please confirm your email address by opening the link below:

    %s

If you did not create this account, you can safely ignore this email.

- The SOCRP Team`, fullName, link),
	}
}
