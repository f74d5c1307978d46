/*
Package aesd implements the aesdsocket protocol.

Every byte a client sends is appended to a shared store. When a received chunk
contains the terminator, the whole store is sent back and the connection is
closed. Connections are handled one at a time, in accept order.
*/
package aesd
