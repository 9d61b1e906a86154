/*
Package content validates, inspects, and sanitizes view documents.

Documents are replaced whole: a view's content is always a complete HTML
document, and fragments are rejected with ErrFragment rather than patched
into the existing document. Inspection is read-only and feeds the create and
set-content handlers (title fallback, script counts, restriction policy
presence, gated resource references). Sanitization covers untrusted titles
and, for views without script execution, strips scripts from documents while
keeping their structure intact.
*/
package content
