package signal

// #region error-keywords

var errorKeywords = []string{
	"error:", "fatal:", "panic:", "exception", "traceback",
	"command not found", "no such file", "permission denied",
	"segmentation fault", "cannot find", "undefined:",
}

// #endregion error-keywords

// #region test-keywords

var testFailureKeywords = []string{
	"--- fail", "tests failed", "test failed", "failures:",
	"assertion failed", "expected", "0 passed",
}

var testPassKeywords = []string{
	"--- pass", "all tests passed", "tests passed", "ok  ", "0 failed",
}

// #endregion test-keywords

// #region build-keywords

var buildFailureKeywords = []string{
	"build failed", "compilation failed", "compile error",
	"cannot compile", "syntax error", "build error",
}

var buildSuccessKeywords = []string{
	"build succeeded", "build successful", "compiled successfully",
	"build complete",
}

// #endregion build-keywords

// #region lint-keywords

var lintKeywords = []string{
	"lint", "vet:", "golangci", "eslint", "warning:",
}

// #endregion lint-keywords

// #region correction-keywords

var correctionKeywords = []string{
	"that's wrong", "that is wrong", "no, ", "not what i asked",
	"you broke", "undo that", "revert that", "stop doing",
	"i told you", "wrong file", "that's not right",
}

var approvalKeywords = []string{
	"looks good", "lgtm", "perfect", "that works", "well done",
	"exactly right", "ship it", "approved",
}

// #endregion correction-keywords

// #region abandonment-keywords

var abandonmentKeywords = []string{
	"abandon the task", "giving up on", "skip this entirely",
	"cannot complete this task", "task is impossible",
	"ignore the original request",
}

// #endregion abandonment-keywords

// #region destructive-keywords

var destructiveKeywords = []string{
	"rm -rf", "drop table", "drop database", "git push --force",
	"git reset --hard", "truncate table", "> /dev/sd",
}

// #endregion destructive-keywords

// #region completion-keywords

var completionKeywords = []string{
	"task complete", "task completed", "all done",
	"finished implementing", "implementation complete",
}

var verificationKeywords = []string{
	"verified against", "confirmed by running", "reproduced the",
	"checked the output", "validated against",
}

// #endregion completion-keywords
