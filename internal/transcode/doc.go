// Package transcode converts between the platform's native JSON resources
// and flat records.
//
// Decoders take the ordered list of flat fields to produce and drop any they
// do not know. Encoders go the other way for the resources that can be
// written back: networks, assets and a single reference table.
package transcode
