/*
Package tracing provides lightweight request tracing for the bridge API.

Each bridge request gets a span whose trace ID is taken from X-Trace-ID or
generated. The trace rides in the request context, and the auth client
copies it onto outgoing requests, so a login issued through the bridge can
be matched with the auth service's logs.

Finished spans are logged by a buffered collector: at debug level normally,
at warn level for errors and 5xx responses.

# Usage

	tracer := tracing.New("bridge", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
