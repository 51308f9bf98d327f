/*
Package mig provides the schema history, the rule catalogue and tools to migrate recorded data.

A project schema is versioned by sequential integers. Each version declares the named types of the
project as one recursive family, so types can refer to each other and to themselves. Fixes are
rules, that move values of one type from the previous version to the next. The history applies
the fixes of each version in declaration order and checks that the result matches the declared
types of the next version. Types without fixes must not change.

Data stores like plain files need to store the schema version. The manifest records the version
and a hash of the definition of the schema and each type. Programs involved with migration have
the full schema history, other programs only need the manifest to detect schema drift, that is a
changed definition without a new version.

Datasets are directories or zip files with a manifest and one stream of JSON or YAML values per
type. Migration converts all values of a dataset to a newer version and reports failing values
without stopping.
*/
package mig
