// Package tether bridges attribute observation on externally owned objects
// into reactive values.
//
// The core type is Property, which exposes one attribute path of one object
// as a directly readable and writable value, a replaying Producer and a
// future-only Signal.
//
// # Lifetime
//
// A Property lives exactly as long as the object it observes. Construction
// starts a subscription on the object's Notifier; that running subscription
// owns the Property's relay state. When the object is released the notifier
// closes the change stream, the relay ends, every subscriber completes and
// the Property drops its reference to the object. Holders never have to close
// a Property.
//
// # Direct access
//
// Value and SetValue always go straight through to the object. They never
// consult the relay, so a write is only visible to Producer and Signal
// subscribers once the notifier echoes it back.
//
// # Example
//
//	obj := tether.NewMapObject(map[string]any{"volume": 3})
//
//	prop, err := tether.New(ctx, obj, "volume")
//	if err != nil {
//	    return err
//	}
//
//	go func() {
//	    for v := range prop.Producer(ctx) {
//	        log.Printf("volume is now %v", v)
//	    }
//	}()
//
//	_ = prop.SetValue(ctx, 7)
//	obj.Release() // producer completes, prop.Value now returns nil
package tether
