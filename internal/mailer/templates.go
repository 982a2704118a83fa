package mailer

import "fmt"

// PasswordResetEmail renders the temporary-password notification.
func PasswordResetEmail(fullName, username, tempPassword string) (subject, body string) {
	subject = "Your password has been reset"
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>A password reset was requested for your account <b>%s</b>.</p>
<p>Your temporary password is: <b>%s</b></p>
<p>Please sign in and change it right away. You will be asked to set a new password on your next login.</p>
<p>If you did not request this, contact support.</p>
<p>Horizon Tours</p>
</body></html>`, fullName, username, tempPassword)
	return subject, body
}

// BookingConfirmationEmail renders the approval notification sent when an
// admin confirms a booking.
func BookingConfirmationEmail(fullName, tourName, reference string, people int, total float64) (subject, body string) {
	subject = fmt.Sprintf("Booking %s confirmed", reference)
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Great news! Your booking has been confirmed.</p>
<ul>
<li>Reference: <b>%s</b></li>
<li>Tour: %s</li>
<li>People: %d</li>
<li>Total paid: $%.2f</li>
</ul>
<p>We look forward to seeing you. Keep your reference handy at check-in.</p>
<p>Horizon Tours</p>
</body></html>`, fullName, reference, tourName, people, total)
	return subject, body
}

// BookingRejectionEmail renders the rejection notification sent when an
// admin declines a booking.
func BookingRejectionEmail(fullName, tourName, reference, reason string) (subject, body string) {
	subject = fmt.Sprintf("Booking %s could not be confirmed", reference)
	if reason == "" {
		reason = "The tour could not accommodate your request."
	}
	body = fmt.Sprintf(`<html><body>
<p>Hi %s,</p>
<p>Unfortunately your booking <b>%s</b> for <b>%s</b> was not confirmed.</p>
<p>Reason: %s</p>
<p>Any payment made will be refunded. Feel free to browse our other tours.</p>
<p>Horizon Tours</p>
</body></html>`, fullName, reference, tourName, reason)
	return subject, body
}
