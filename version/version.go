/*package version controls the version*/
package version

// SourceVersion is the version string representing the semantic version
// number of the source code.
const SourceVersion = "0.2.0"
