// Package pkg holds the redcomm library and the packages of the redcomm CLI.
//
// Applications embedding redcomm depend on rediscomm, which composes codec,
// stream and cursor. The gateway lives in server, and client talks to it.
package pkg
