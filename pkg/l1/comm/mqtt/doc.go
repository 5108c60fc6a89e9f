// Package mqtt bridges register access over an MQTT broker.
//
// A bridged board named <type>/<id> receives requests on <type>/<id>/cmd,
// replies on <type>/<id>/msg and announces itself with a retained
// <type>/<id>/meta message.
package mqtt
