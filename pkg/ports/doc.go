/*
Package ports defines the driven ports (interfaces) consumed by the call engine.

These interfaces decouple the orchestration logic from the wire format, the network
and the service-description plumbing.

# Key Interfaces

  - BindingSupplier: yields a ready Binding, resolving at most once for all callers.
  - Binding: turns an invocation into an HTTP request and an HTTP response into a Result or Fault.
  - Transport: sends the request and reports a tagged Outcome.
  - DescriptionLoader / DescriptionCache: fetch and cache service-description documents.
  - DistributedLocker: coordinates description fetches across replicas.
*/
package ports
