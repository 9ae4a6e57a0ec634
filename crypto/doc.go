/*
Package crypto provides the TLS configuration used when connecting
to IMAP servers, both for implicit TLS (imaps://) and for a STARTTLS
upgrade performed mid-connection.
*/
package crypto
