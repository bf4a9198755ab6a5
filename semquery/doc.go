// Package semquery condenses a query against the items of one document.
//
// An affinity kernel of pairwise cosine similarities spreads relevance from
// seed items to the items that echo them ("excite"). Condense iterates
// seed selection and excitation, pulling the query toward the mean of the
// excited carriers while keeping a fixed share ("karma") of the original
// intent, until the query stops moving or a step limit is hit. Skeletonize
// ranks the points where consecutive items change meaning the most.
package semquery
