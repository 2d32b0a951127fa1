// Command clinikondo files scanned medical documents into a patient
// folder tree. It reads documents from the configured input directory,
// extracts filing metadata, reconciles patient identities, and places
// each file under {output}/{patient}/{type} with a canonical name.
package main
