package transcript

// sampleLabels is the built-in transcript shown before the user imports one.
var sampleLabels = []Label{
	{Time: "0:00", Text: "An audio file has been uploaded."},
	{Time: "0:05", Text: "Press the play button to start playback."},
	{Time: "0:10", Text: "Click a time on the timeline to jump to that position."},
	{Time: "0:15", Text: "The volume can be adjusted as well."},
	{Time: "0:20", Text: "Adding real speech recognition would transcribe audio automatically."},
}

// Sample returns a fresh copy of the built-in transcript.
func Sample() *Transcript {
	entries, err := FromLabels(sampleLabels)
	if err != nil {
		// sampleLabels is a compile-time constant; a parse failure is a bug.
		panic(err)
	}
	return &Transcript{Source: SourceSample, Name: "sample", Entries: entries}
}
