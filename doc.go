/*
go-consensus computes inter-annotator agreement for image annotation
projects.  Several projects (annotators or annotation sessions) that labelled
the same images are compared instance by instance: for every image the
instances of all projects are greedily grouped into clusters that denote the
same object, and every clustered instance receives a score describing how
well the other projects agree with it.

The geometry subpackage provides the shapes and similarity measure, the
dataset subpackage loads per project annotation exports, the report
subpackage writes and summarises results and the agreement subpackage solves
optimal pairwise project matching.

See example code and usage in the example subdirectory.
*/
package consensus
