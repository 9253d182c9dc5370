// Package watch turns filesystem notifications under the watch root into
// compilations. A recursive fsnotify subscription feeds an unbounded queue;
// a single consumer filters each event and hands compilable sources to a
// handler, one at a time, in delivery order.
package watch
