// Package domain holds the request, render and mail value types of the PDF
// mailer together with its error taxonomy. It has no transport (HTTP, Lambda)
// or infrastructure (Chrome, SMTP) dependencies.
package domain
