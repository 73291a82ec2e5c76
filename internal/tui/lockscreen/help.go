package lockscreen

// HelpMarkdown is the help panel shown with "?"
const HelpMarkdown = `# Daily Gate

The screen stays up until you solve **one** LeetCode problem today.

- The gate checks your recent accepted submissions on a timer. A problem
  accepted today (in the gate's timezone) unlocks it within one check.
- **d** opens the daily challenge and **p** the problem set in your browser.
- **u** updates the session cookie when LeetCode logs you out. The cookie is
  checked once before it is kept.
- **e** is the emergency exit. It always works and every use is logged.

Quitting is refused while the gate is locked.`
