// Package email provides the transactional email sender used by the alert
// email channel.
//
// Two implementations of EmailSender ship with the package:
//
//   - NewPostmarkClient sends through Postmark's transactional API
//   - NewDevSender writes emails to a local directory for inspection
//
// Hosting applications that already have an email pipeline can satisfy the
// EmailSender interface with their own implementation and pass it to
// alerts.NewEmailNotifier.
package email
