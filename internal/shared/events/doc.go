// Package events provides a non-blocking fan-out hub for sandbox activity.
//
// The sandbox emits events as windows are adopted, opens are intercepted,
// and reads are refused. The hub decouples those emitters from consumers
// such as the WebSocket stream: emitters never block, and a subscriber
// that cannot keep up loses events instead of stalling interception.
package events
