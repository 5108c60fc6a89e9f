// Package comm provides L0 register protocol support.
package comm

// L0 protocol is communicated between the servo2040 firmware and the host
// over a USB-CDC serial port. The host reads and writes a flat space of
// 128 registers, each holding a 14-bit value.
//
// Every byte with the high bit set starts a command, all other bytes carry
// 7 bits of data. There are no sequence numbers and no checksums, so the
// protocol is strictly request/response: a GET response is validated by the
// echo of the request header.
//
// Producer: host
// Consumer: servo2040 firmware
