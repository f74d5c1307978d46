/*
Package log is a leveled, structured logger using the syslog priorities.

Events carry a message and alternating key/value pairs:

	log.INFO("Accepted connection", "from", addr)

Child loggers with fixed context are made with With(). Output is decided by a
Handler: the minimal formatter writes "<6>message key=value" lines which
journald and syslog understand, the terminal formatter colors the level when
the output is a TTY, and the syslog handler forwards to the system logger.
*/
package log
