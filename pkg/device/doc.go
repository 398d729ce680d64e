// ABOUTME: Package documentation for the device contract
// ABOUTME: Explains lifecycle, callback threading and backend structure
// Package device defines the audio I/O device contract shared by all
// duplex-go backends.
//
// A Device is a synchronised audio input/output stream. Concrete backends
// (nulldev, otodev, wavdev, netdev) implement the interface over their
// transport while the Pump in this package supplies the streaming loop:
// a dedicated goroutine that exchanges planar int32 blocks with a Callback.
//
// # Lifecycle
//
//	dev, err := device.Create("Null", "")
//	err = dev.Open(device.Setup{
//	    OutputChannels: device.Stereo(),
//	    SampleRate:     48000,
//	    BufferSize:     480,
//	})
//	err = dev.Start(myCallback)
//	...
//	dev.Stop()   // returns after the last ProcessBlock has flushed
//	dev.Close()
//
// Stop blocks until any in-flight ProcessBlock has returned and the
// callback's Stopped method has run, so a callback's state may be torn
// down immediately after Stop.
//
// # Enumeration
//
// Backends register a Type with Register. Callers walk Types, scan each
// one and create devices by name, or use Create for the one-call path.
package device
