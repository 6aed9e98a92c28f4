// Package client provides the RESP client used by redikv-cli.
//
// It frames requests with the same codec the server speaks and parses one
// reply per request. One Client wraps one TCP connection; it is not safe
// for concurrent use.
package client
