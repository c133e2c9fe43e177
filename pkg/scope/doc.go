/*
Package scope implements the execution context of a script run and the three
variable namespaces it consults.

Lookups resolve local → global → system; the first scope holding a name wins.
Local variables belong to one Context. The global Store and the read-only
System are shared by every script of an Env and must tolerate concurrent
access from auxiliary paths such as periodic cache refreshes.
*/
package scope
