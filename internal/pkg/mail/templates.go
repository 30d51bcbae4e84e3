package mail

import (
	"fmt"
	"time"
)

// Template is a rendered transactional email: subject plus HTML and plain
// text bodies. Both bodies are always produced so the mailer can send a
// multipart/alternative message.
type Template struct {
	Subject string
	HTML    string
	Text    string
}

const baseStyles = `
  body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
  .container { max-width: 600px; margin: 0 auto; padding: 20px; }
  .header { background-color: #4F46E5; color: white; padding: 30px 20px; text-align: center; }
  .content { background-color: #ffffff; padding: 30px 20px; }
  .button { display: inline-block; padding: 12px 24px; background-color: #4F46E5; color: white; text-decoration: none; border-radius: 6px; margin: 20px 0; }
  .footer { background-color: #f3f4f6; padding: 20px; text-align: center; font-size: 12px; color: #6b7280; }
`

func footer() string {
	return fmt.Sprintf("© %d Next CRM. All rights reserved.", time.Now().Year())
}

func wrapHTML(headerStyle, headerTitle, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>%s</style>
</head>
<body>
  <div class="container">
    <div class="header"%s>
      <h1>%s</h1>
    </div>
    <div class="content">
%s
    </div>
    <div class="footer">
      <p>%s</p>
    </div>
  </div>
</body>
</html>`, baseStyles, headerStyle, headerTitle, content, footer())
}

// WelcomeEmail greets a newly created account.
func WelcomeEmail(userName, dashboardURL string) Template {
	subject := "Welcome to Next CRM! 🎉"

	content := fmt.Sprintf(`      <h2>Hi %s,</h2>
      <p>Thanks for joining Next CRM! We're excited to have you on board.</p>
      <p>Your account has been created successfully. You can now:</p>
      <ul>
        <li>Manage your users and subscriptions</li>
        <li>Receive notifications about your account</li>
        <li>Track your usage and billing</li>
      </ul>
      <p style="text-align: center;">
        <a href="%s" class="button">Go to Dashboard</a>
      </p>
      <p>If you have any questions, feel free to reach out to our support team.</p>`, userName, dashboardURL)

	text := fmt.Sprintf(`Welcome to Next CRM!

Hi %s,

Thanks for joining Next CRM! We're excited to have you on board.

Your account has been created successfully.

Access your dashboard: %s

If you have any questions, feel free to reach out to our support team.

%s
`, userName, dashboardURL, footer())

	return Template{Subject: subject, HTML: wrapHTML("", "Welcome to Next CRM!", content), Text: text}
}

// UploadDetails describes a received file for the upload notice.
type UploadDetails struct {
	FileName     string
	FileSize     int64
	Shortcode    string
	UploaderInfo string
	Timestamp    time.Time
}

// UploadNotificationEmail notifies the owner of a shortcode about a new file.
func UploadNotificationEmail(details UploadDetails, dashboardURL string) Template {
	sizeMB := float64(details.FileSize) / (1024 * 1024)
	when := details.Timestamp.Format("Jan 2, 2006 15:04 MST")
	subject := fmt.Sprintf("New Upload: %s", details.FileName)

	uploader := ""
	uploaderText := ""
	if details.UploaderInfo != "" {
		uploader = fmt.Sprintf(`<p style="margin: 5px 0;"><strong>Uploaded By:</strong> %s</p>`, details.UploaderInfo)
		uploaderText = fmt.Sprintf("- Uploaded By: %s\n", details.UploaderInfo)
	}

	content := fmt.Sprintf(`      <h2>You've received a new file!</h2>
      <p>A file has been uploaded to your shortcode <strong>%s</strong>.</p>
      <div style="background-color: #f3f4f6; padding: 15px; border-radius: 6px; margin: 20px 0;">
        <p style="margin: 5px 0;"><strong>File Name:</strong> %s</p>
        <p style="margin: 5px 0;"><strong>File Size:</strong> %.2f MB</p>
        <p style="margin: 5px 0;"><strong>Upload Time:</strong> %s</p>
        %s
      </div>
      <p style="text-align: center;">
        <a href="%s" class="button">View in Dashboard</a>
      </p>`, details.Shortcode, details.FileName, sizeMB, when, uploader, dashboardURL)

	text := fmt.Sprintf(`New File Upload

A file has been uploaded to your shortcode %s.

File Details:
- File Name: %s
- File Size: %.2f MB
- Upload Time: %s
%s
View in your dashboard: %s

%s
`, details.Shortcode, details.FileName, sizeMB, when, uploaderText, dashboardURL, footer())

	return Template{Subject: subject, HTML: wrapHTML("", "📤 New File Upload", content), Text: text}
}

// SubscriptionConfirmedEmail confirms an active subscription.
func SubscriptionConfirmedEmail(planName, dashboardURL string) Template {
	subject := fmt.Sprintf("Subscription Confirmed: %s", planName)

	content := fmt.Sprintf(`      <h2>Thank you for subscribing!</h2>
      <p>Your subscription to the <strong>%s</strong> plan has been confirmed.</p>
      <p>Your subscription is now active and you have access to all premium features.</p>
      <p style="text-align: center;">
        <a href="%s" class="button">Go to Dashboard</a>
      </p>`, planName, dashboardURL)

	text := fmt.Sprintf(`Subscription Confirmed

Thank you for subscribing!

Your subscription to the %s plan has been confirmed.

Your subscription is now active and you have access to all premium features.

Go to your dashboard: %s

%s
`, planName, dashboardURL, footer())

	return Template{Subject: subject, HTML: wrapHTML("", "✅ Subscription Confirmed", content), Text: text}
}

// PaymentFailedEmail warns about a failed charge and the retry date.
func PaymentFailedEmail(planName string, retryDate time.Time, dashboardURL string) Template {
	subject := "Payment Failed - Action Required"
	formatted := retryDate.Format("January 2, 2006")

	content := fmt.Sprintf(`      <h2>We couldn't process your payment</h2>
      <p>Unfortunately, we were unable to process the payment for your <strong>%s</strong> subscription.</p>
      <p>We'll automatically retry the payment on <strong>%s</strong>.</p>
      <p>To avoid service interruption, please:</p>
      <ul>
        <li>Verify your payment method has sufficient funds</li>
        <li>Update your payment method if needed</li>
        <li>Check that your card hasn't expired</li>
      </ul>
      <p style="text-align: center;">
        <a href="%s" class="button">Update Payment Method</a>
      </p>`, planName, formatted, dashboardURL)

	text := fmt.Sprintf(`Payment Failed - Action Required

Unfortunately, we were unable to process the payment for your %s subscription.

We'll automatically retry the payment on %s.

To avoid service interruption, please:
- Verify your payment method has sufficient funds
- Update your payment method if needed
- Check that your card hasn't expired

Update your payment method: %s

%s
`, planName, formatted, dashboardURL, footer())

	return Template{Subject: subject, HTML: wrapHTML(` style="background-color: #dc2626;"`, "⚠️ Payment Failed", content), Text: text}
}

// SubscriptionCancelledEmail confirms a cancellation and the access-end date.
func SubscriptionCancelledEmail(planName string, endDate time.Time, dashboardURL string) Template {
	subject := "Subscription Cancelled"
	formatted := endDate.Format("January 2, 2006")

	content := fmt.Sprintf(`      <h2>Your subscription has been cancelled</h2>
      <p>Your <strong>%s</strong> subscription has been cancelled as requested.</p>
      <p>You'll continue to have access to premium features until <strong>%s</strong>.</p>
      <p>We're sorry to see you go! You can resubscribe at any time from your dashboard.</p>
      <p style="text-align: center;">
        <a href="%s" class="button">View Dashboard</a>
      </p>`, planName, formatted, dashboardURL)

	text := fmt.Sprintf(`Subscription Cancelled

Your %s subscription has been cancelled as requested.

You'll continue to have access to premium features until %s.

We're sorry to see you go! You can resubscribe at any time from your dashboard: %s

%s
`, planName, formatted, dashboardURL, footer())

	return Template{Subject: subject, HTML: wrapHTML("", "Subscription Cancelled", content), Text: text}
}

// PasswordResetEmail carries a one-time reset link.
func PasswordResetEmail(resetLink, expiresIn string) Template {
	subject := "Reset Your Password"

	content := fmt.Sprintf(`      <h2>Reset your password</h2>
      <p>We received a request to reset your password. Click the button below to create a new password:</p>
      <p style="text-align: center;">
        <a href="%s" class="button">Reset Password</a>
      </p>
      <p>This link will expire in <strong>%s</strong>.</p>
      <p>If you didn't request this password reset, please ignore this email. Your password will remain unchanged.</p>
      <p style="color: #6b7280; font-size: 14px;">For security reasons, this link can only be used once.</p>`, resetLink, expiresIn)

	text := fmt.Sprintf(`Password Reset Request

We received a request to reset your password. Open the link below to create a new password:

%s

This link will expire in %s.

If you didn't request this password reset, please ignore this email. Your password will remain unchanged.

%s
`, resetLink, expiresIn, footer())

	return Template{Subject: subject, HTML: wrapHTML("", "🔐 Password Reset Request", content), Text: text}
}
