package organize

// Instructions are English, output is Japanese.

const duplicateDetectionPrompt = `Identify pairs of items that have the same meaning or are duplicates from the list below.

### Item List
%s

### Output Format
Output the duplicate pairs in JSON format. If there are no duplicates, return an empty array.
` + "```json" + `
[
    {"id1": 1, "id2": 3, "reason": "Both mention exactly the same topic"},
    {"id1": 2, "id2": 5, "reason": "Different expression of the same information"}
]
` + "```" + `
Output **JSON ONLY**. No other text.
`

const mergePrompt = `Merge the following two items into one.
Include all important information from both to ensure no information is lost.

### Item 1
%s

### Item 2
%s

### Output Format
Output the merged content in a single Japanese sentence. No JSON.
`

const formatPrompt = `Refine the expression of the following text into natural Japanese.
Make it easier to read without changing the meaning.

### Original Text
%s

### Output Format
Output the refined text in Japanese. Keep it concise.
`

const compressPrompt = `Compress the following episode.
Keep the important information but make the expression shorter.

### Compression Level
%d (1:Light, 2:Medium, 3:Strong)

### Original Episode
%s

### Output Format
Output the compressed episode in Japanese. The higher the compression level, the shorter it should be.
`

const conflictDetectionPrompt = `Identify conflicting items from the following list.
Conflicting items have contradictory information about the same topic.

### Item List
%s

### Output Format
Output the conflicting pairs in JSON format. If there are no conflicts, return an empty array.
` + "```json" + `
[
    {"id1": 1, "id2": 3, "newer_id": 3, "reason": "Values are contradictory"}
]
` + "```" + `
In ` + "`newer_id`" + `, specify the ID of the newer information (the one that should be kept).
Output **JSON ONLY**. No other text.
`
