/*
Package domain contains the core types shared by the call engine and its adapters.

It is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Invocation: one logical call (operation name, arguments, options, input headers).
  - Result: the interpreted response value paired with the output headers.
  - Fault: an application-level error embedded in a delivered response.
  - BuildError, TransportError, DecodeError: the remaining failure kinds.
  - CallEvent / LifecycleHooks: observability callbacks fired by the engine.
*/
package domain
