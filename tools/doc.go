// Package tools defines the Tool interface and the Dispatcher that merges
// in-process tools with tools of remote providers into one catalogue.
// Local tools take precedence over remote tools with the same name.
package tools
