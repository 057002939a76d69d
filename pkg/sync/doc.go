/*
The sync package implements one-way mirroring of a source folder onto a replica
folder.

Each pass works from two fresh snapshots, one of each tree:

1) Both trees are scanned. If they contain the same relative paths, and every
   file has the same size and modification time in both, the pass ends early.
2) Every source folder is created in the replica.
3) Every source file that's missing from the replica, or whose size,
   modification time or contents differ, is copied. The copy is given the
   source's modification time so that the next pass sees it as unchanged.
4) Replica files with no source counterpart are removed, followed by replica
   folders with no source counterpart, deepest first.

Nothing is ever written to the source. Nothing is persisted between passes: the
two trees are the only state.

Because the early exit in step 1 only looks at metadata, a file that's
rewritten with the same size and modification time isn't noticed until some
other change forces a full pass.
*/
package sync
