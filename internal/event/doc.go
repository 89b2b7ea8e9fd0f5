// Package event defines the immutable event record and its closed set of
// payload variants.
//
// Every event type maps to exactly one payload struct. Payloads render to an
// ir.IRObject, which is both the stored form and the audit hash input, and
// decode back through DecodePayload. The wire shape is
//
//	{eventId, streamId, version, eventType, payload,
//	 meta: {timestamp, user, auditHash, prevHash, chainHash}}
package event
