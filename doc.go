/*
Package dyndns keeps DNS address records pointed at the host's current public IP.

Usage will always start with [dyndns.New],
which takes the domain names to manage and a set of options.
One of the zone options ([UsingRoute53], [UsingCloudflare], [UsingZoneAPI])
or [UsingUpdater] is required.

[Client.RunDDNS] performs a single reconciliation cycle:
it resolves the public IP once and, only when the address differs from the last one it recorded,
upserts a record for every configured domain.
[Client.Run] repeats the cycle on a schedule until its context is cancelled.
*/
package dyndns
