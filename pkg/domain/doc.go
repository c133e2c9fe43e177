/*
Package domain contains the core data model of the Tessera scripting engine.

It defines the authored block trees, the host events that trigger them and the small
result algebra every block execution produces. The package is pure: no I/O, no
persistence, no knowledge of concrete block behaviors.

# Key Entities

  - Block: a typed node of an authored tree (trigger, condition, action, loop or control).
  - Script: a block tree whose root is a trigger, registered for dispatch.
  - Event: an opaque host occurrence ("actor joined", "block broken") matched against scripts.
  - Signal: the result of executing a block (Success, Error, Break, Continue, Return).
  - Report: the outcome of dispatching one event to every matching script.
*/
package domain
