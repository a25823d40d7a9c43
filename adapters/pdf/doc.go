// Package exportpdf provides the capture and document backends for go-gridexport.
//
// FPDFFactory assembles single-page documents with go-pdf/fpdf. The
// ChromiumRasterizer renders the capture template in a shared headless
// Chromium instance and screenshots the table container.
package exportpdf
