// Package convertpdf provides HTML-to-PDF engines for go-docexport.
//
// Engines receive the HTML rendering of a document and return PDF bytes.
// Register binds the chromedp engine to the chromium backend and the
// wkhtmltopdf CLI to the wkhtmltopdf backend; the native fpdf backend is
// built into the convert package.
package convertpdf
