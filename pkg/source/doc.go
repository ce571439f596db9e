// Package source defines the images photoaffix composes and where they come from.
//
// A [Photo] is a candidate supplied by a photo source (a gallery query, a
// directory scan, or explicit paths on the command line). A [SourceImage] is a
// photo after bounds inspection: its declared pixel dimensions and EXIF
// orientation, read without decoding the pixels.
//
// URIs are either plain filesystem paths or file:// URLs; [Open] resolves both.
package source
